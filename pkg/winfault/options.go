package winfault

import "time"

type options struct {
	cdbPath    string
	kdPath     string
	symbolPath string
	timeout    time.Duration
	apiKey     string
	chatModel  string
}

// Option configures a Winfault instance.
type Option func(*options)

// WithDebugger sets the cdb and kd executable paths used for dumps that are
// not minidumps. Either may be empty; the first existing tool is used.
func WithDebugger(cdbPath, kdPath string) Option {
	return func(o *options) {
		o.cdbPath = cdbPath
		o.kdPath = kdPath
	}
}

// WithSymbolPath sets the debugger symbol path. Default: "srv*".
func WithSymbolPath(path string) Option {
	return func(o *options) {
		o.symbolPath = path
	}
}

// WithTimeout bounds one debugger invocation. Values outside [1s, 1h] are
// clamped. Default: 5 minutes.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithAnalyzer enables LLM analysis with the given OpenAI API key and chat
// model. Without this option, Analyze returns an error.
func WithAnalyzer(apiKey, chatModel string) Option {
	return func(o *options) {
		o.apiKey = apiKey
		o.chatModel = chatModel
	}
}

func defaultOptions() options {
	return options{
		symbolPath: "srv*",
		timeout:    5 * time.Minute,
	}
}
