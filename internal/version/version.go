package version

// Version is the current version of the argo-quant library.
// This value is set at build time using ldflags:
// -ldflags "-X github.com/rxtech-lab/argo-quant/internal/version.Version=1.2.3"
// The default value "main" indicates a development build.
var Version = "v1.0.0"

// StrategyAPIVersion is the version of the strategy interface the engine
// speaks. Builtin strategies report this value; externally developed
// strategies report the version they were built against and are checked
// for compatibility before a run starts.
var StrategyAPIVersion = "v1.0.0"

// GetVersion returns the current version of the library.
func GetVersion() string {
	return Version
}
