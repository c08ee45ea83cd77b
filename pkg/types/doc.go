// Package types defines the sample, assignment, run, and configuration types
// shared by the vbranch label engine and its collaborators, along with the
// standard errors they return.
package types
