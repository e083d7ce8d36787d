// Package outputs inspects and tidies the job trees under the output base.
//
// A tree is complete once its master playlist exists. Trees still holding
// the workflow's output lock are reported as active and left alone.
package outputs
