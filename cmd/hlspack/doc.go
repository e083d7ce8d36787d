// Package main hosts the hlspack CLI entrypoint and command graph.
//
// The Cobra-based command tree packages media into HLS trees, runs batch job
// files, inspects sources and ladders, operates on playlist files, and reads
// the job history ledger. It centralizes .env loading, configuration
// resolution, and logger setup so subcommands only wire internal packages
// together and render their results.
package main
