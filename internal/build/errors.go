package build

import "errors"

// Sentinel errors used to classify stage failures in the report. They are
// always wrapped with context at the call site.
var (
	ErrPassthrough = errors.New("sitebuilder: passthrough error")
	ErrRender      = errors.New("sitebuilder: render error")
	ErrTemplate    = errors.New("sitebuilder: template error")
	ErrBrokenLinks = errors.New("sitebuilder: broken internal links")
)
