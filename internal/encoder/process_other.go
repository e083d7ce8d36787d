//go:build !unix

package encoder

import "os/exec"

func configureProcessGroup(cmd *exec.Cmd) {}
