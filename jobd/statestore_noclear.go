//go:build !jobdtest

package jobd

const clearStateFileAllowed = false
