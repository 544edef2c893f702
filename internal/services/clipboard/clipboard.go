// Package clipboard provides access to the system clipboard.
package clipboard

import (
	"errors"
	"fmt"

	"github.com/atotto/clipboard"
)

// ErrUnavailable reports that no clipboard utility is present on the system.
var ErrUnavailable = errors.New("no clipboard utility is available on this system")

// Copier copies textual data to the system clipboard.
type Copier interface {
	Copy(text string) error
}

type writeFunc func(text string) error

// Service implements Copier using github.com/atotto/clipboard.
type Service struct {
	unsupported bool
	write       writeFunc
}

// NewService constructs a clipboard service backed by the system clipboard.
func NewService() *Service {
	return &Service{unsupported: clipboard.Unsupported, write: clipboard.WriteAll}
}

// Copy writes text to the system clipboard.
func (service *Service) Copy(text string) error {
	if service.unsupported {
		return ErrUnavailable
	}
	if err := service.write(text); err != nil {
		return fmt.Errorf("copy to clipboard: %w", err)
	}
	return nil
}

var _ Copier = (*Service)(nil)
