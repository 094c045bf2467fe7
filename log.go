package krox

import (
	"os"

	kitlog "github.com/go-kit/kit/log"
)

// NewLogger returns a logfmt logger to stdout tagged with the kind and name of
// the component, e.g. NewLogger("tank", "oxidizer").
func NewLogger(kind, name string) kitlog.Logger {
	klog := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stdout))
	return kitlog.With(klog, kind, name)
}
