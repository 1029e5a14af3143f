package cmd

import (
	"fmt"

	"github.com/pwtools/pwrun/pkg/pwsdk/pwerr"
)

// friendlyError turns coded API errors into actionable guidance for the user.
// Everything else passes through unchanged.
func friendlyError(err error) string {
	switch {
	case pwerr.IsCode(err, pwerr.CodeUnauthorized):
		return fmt.Sprintf("authentication failed: set %s or run 'pwrun auth login' (%v)", "PW_API_KEY", err)
	case pwerr.IsCode(err, pwerr.CodeNotFound):
		return fmt.Sprintf("%v: check the workflow name with 'pwrun list'", err)
	case pwerr.IsCode(err, pwerr.CodePortConflict):
		return fmt.Sprintf("%v (use --local-port to pick a different one)", err)
	default:
		return err.Error()
	}
}
