package gameweek

// Option configures a Finalizer.
type Option func(*Finalizer)

// WithParallelism bounds the number of ledgers rolled concurrently.
// Values below one are ignored.
func WithParallelism(n int) Option {
	return func(f *Finalizer) {
		if n > 0 {
			f.parallelism = n
		}
	}
}

// WithSuggestions sets how many catalog ids are suggested for an unknown
// athlete in a report. Zero disables suggestions.
func WithSuggestions(n int) Option {
	return func(f *Finalizer) {
		if n >= 0 {
			f.suggestions = n
		}
	}
}
