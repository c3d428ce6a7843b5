package handler

import (
	"context"
	"errors"

	"certhub/entity"
	"certhub/pkg/errutil"
	"certhub/pkg/router"
)

func getUser(ctx context.Context) (*entity.User, error) {
	user, ok := router.GetUserFromContext(ctx)
	if !ok {
		return nil, errutil.UnauthorizedError(errors.New("missing user in context"))
	}
	return user, nil
}
