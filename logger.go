package authz

// LoggerProviderFunc adapts a function to the LoggerProvider interface.
type LoggerProviderFunc func(name string) Logger

func (f LoggerProviderFunc) GetLogger(name string) Logger {
	if f == nil {
		return nil
	}
	return f(name)
}

// ResolveLogger picks the logger for a named channel: a provider-supplied
// logger wins, then the explicit fallback, then the package default. It
// returns both so components can carry the provider forward for their own
// sub-channels.
func ResolveLogger(name string, provider LoggerProvider, fallback Logger) (LoggerProvider, Logger) {
	if provider != nil {
		if logger := provider.GetLogger(name); logger != nil {
			return provider, logger
		}
	}

	if fallback != nil {
		return provider, fallback
	}

	return provider, defLogger{}
}
