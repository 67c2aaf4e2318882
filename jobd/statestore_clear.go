//go:build jobdtest

package jobd

// clearStateFileAllowed is compiled true only under the jobdtest build tag,
// matching the source's build-flag-guarded test hook: clear_state_file
// must fail loudly in any production build rather than silently succeed.
const clearStateFileAllowed = true
