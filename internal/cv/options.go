package cv

// CV operation options
type Option func(*cvOptions)

type cvOptions struct {
	region    *Region
	downscale float64
	onSkip    SkipFunc
}

func applyOptions(opts []Option) *cvOptions {
	o := &cvOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithRegion overrides the reference's own search region
func WithRegion(r *Region) Option {
	return func(opts *cvOptions) {
		opts.region = r
	}
}

// WithDownscale enables the coarse pre-pass at the given scale (0 < s < 1)
func WithDownscale(s float64) Option {
	return func(opts *cvOptions) {
		opts.downscale = s
	}
}

// WithSkipHandler reports references skipped because their match failed
func WithSkipHandler(fn SkipFunc) Option {
	return func(opts *cvOptions) {
		opts.onSkip = fn
	}
}
