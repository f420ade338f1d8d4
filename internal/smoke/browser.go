package smoke

import "context"

// Page is the slice of a browser tab the smoke steps need. Goto returns only
// after the network-idle condition is reached.
type Page interface {
	Goto(ctx context.Context, url string) error
	Screenshot(ctx context.Context, path string) error
	Title(ctx context.Context) (string, error)
	Content(ctx context.Context) (string, error)
	IsVisible(ctx context.Context, selector string) (bool, error)
}

type Browser interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

type Launcher interface {
	Launch(ctx context.Context) (Browser, error)
}

// LauncherFunc adapts a function to Launcher.
type LauncherFunc func(ctx context.Context) (Browser, error)

func (f LauncherFunc) Launch(ctx context.Context) (Browser, error) {
	return f(ctx)
}
