package mailer

import (
	"bytes"
	"embed"
	"fmt"
	"net/http"

	"github.com/gofiber/template/django/v3"
	goerrors "github.com/goliatone/go-errors"
)

//go:embed views
var viewsFS embed.FS

const confirmAccountView = "confirm_account"

// Renderer builds email bodies from the embedded django templates
type Renderer struct {
	engine  *django.Engine
	appName string
}

func NewRenderer(appName string) (*Renderer, error) {
	engine := django.NewPathForwardingFileSystem(http.FS(viewsFS), "/views", ".html")
	if err := engine.Load(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load email templates")
	}

	return &Renderer{
		engine:  engine,
		appName: appName,
	}, nil
}

// ConfirmAccount returns the HTML and plain text bodies of the confirmation email
func (r *Renderer) ConfirmAccount(name, confirmationURL string) (string, string, error) {
	out := &bytes.Buffer{}

	err := r.engine.Render(out, confirmAccountView, map[string]any{
		"name":             name,
		"confirmation_url": confirmationURL,
		"app_name":         r.appName,
	})
	if err != nil {
		return "", "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to render confirmation email")
	}

	greeting := "Hi there,"
	if name != "" {
		greeting = fmt.Sprintf("Hi %s,", name)
	}

	text := fmt.Sprintf("%s\n\nPlease confirm your %s account by opening this link:\n\n%s\n",
		greeting, r.appName, confirmationURL)

	return out.String(), text, nil
}
