//go:build !gocv

package source

import "context"

func openGoCV(_ context.Context, desc string, _ Options) (Source, error) {
	return nil, &OpenError{Source: desc, Err: ErrBackendUnavailable}
}
