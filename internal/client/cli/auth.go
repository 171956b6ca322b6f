package cli

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/healthkeeper/internal/client/services"
	"github.com/dmitrijs2005/healthkeeper/internal/common"
)

func (a *App) Login(ctx context.Context) error {
	if a.isLoggedIn() {
		a.println("Already logged in, log out first")
		return nil
	}

	email, err := GetSimpleText(a.reader, "-Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := GetPassword(a.reader, a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	err = a.session.Login(ctx, email, string(password))
	var le *services.LoginError
	switch {
	case err == nil:
		if u := a.user(); u != nil {
			a.printf("Logged in as %s\n", u)
		}
		return nil
	case errors.As(err, &le):
		a.println("Login unsuccessful:", le.Message)
	case errors.Is(err, services.ErrLoginInProgress), errors.Is(err, services.ErrLogoutInProgress):
		a.println("Please wait:", err)
	default:
		a.println("Login unsuccessful:", err)
	}
	return err
}

func (a *App) Logout(ctx context.Context) error {
	if !a.isLoggedIn() {
		a.println("Not logged in")
		return nil
	}
	a.fetches.Cancel()
	a.session.Logout(ctx, false)
	a.println("Logged out")
	return nil
}

// Home returns to the welcome screen. A signed-in user is then taken on to
// the home screen of their role.
func (a *App) Home(ctx context.Context) error {
	return a.router.Navigate(ctx, services.RouteLanding)
}
