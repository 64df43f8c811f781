package cli

import (
	"fmt"

	"github.com/google/subcommands"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mit-pdos/go-store/alloc"
	"github.com/mit-pdos/go-store/config"
	"github.com/mit-pdos/go-store/image"
	"github.com/mit-pdos/go-store/layout"
)

// hint suggests what the operator can do about err.
func hint(err error) string {
	var ce *config.Error
	switch {
	case errors.Is(err, image.ErrNotFound):
		return "create the image with `store init`, or fix the -disk path"
	case errors.Is(err, image.ErrUnreadable):
		return "fix the -disk path or its permissions"
	case errors.Is(err, image.ErrModeMismatch),
		errors.Is(err, image.ErrTruncatedSuperblock),
		errors.Is(err, image.ErrBadMagic),
		errors.Is(err, image.ErrSizeMismatch):
		return "the image is damaged or not a store image; re-create it with `store init`"
	case errors.Is(err, image.ErrAlreadyExists):
		return "remove the existing image or pick another -disk path"
	case errors.Is(err, image.ErrAllocation):
		return "check that the image directory exists and is writable"
	case errors.Is(err, image.ErrWrite):
		return "check the free space of the host filesystem"
	case errors.Is(err, layout.ErrInvalidCapacity):
		return "pick a larger -disk-size"
	case errors.Is(err, alloc.ErrInsufficientSpace):
		return "free space on the image, or init a larger one"
	case errors.Is(err, alloc.ErrNoData):
		return "pass -file or -data, or pipe the data on standard input"
	case errors.As(err, &ce):
		return fmt.Sprintf("fix the %s setting", ce.Field)
	}
	return ""
}

func (env *Env) fail(err error) subcommands.ExitStatus {
	logrus.WithError(err).Debug("command failed")
	fmt.Fprintf(env.Stderr, "store: %v\n", err)
	if h := hint(err); h != "" {
		fmt.Fprintf(env.Stderr, "hint: %s\n", h)
	}
	return subcommands.ExitFailure
}
