//go:build !windows
// +build !windows

package hook

type unsupportedProvider struct{}

func newPlatformProvider(opts Options) Provider {
	return unsupportedProvider{}
}

func (unsupportedProvider) Install() (Hook, error) {
	return nil, ErrUnsupported
}
