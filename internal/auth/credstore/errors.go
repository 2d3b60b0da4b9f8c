package credstore

import "fmt"

// CredentialIOError reports a filesystem failure that prevents the store
// from deciding whether a credential exists.
type CredentialIOError struct {
	Op   string
	Path string
	Err  error
}

func (e *CredentialIOError) Error() string {
	return fmt.Sprintf("credential %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *CredentialIOError) Unwrap() error {
	return e.Err
}
