package main

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/vango-dev/formplug"
	"github.com/vango-dev/formplug/internal/errors"
	"github.com/vango-dev/formplug/pkg/form"
	"github.com/vango-dev/formplug/pkg/plugin"
	"github.com/vango-dev/formplug/pkg/registry"
	"github.com/vango-dev/formplug/plugins/contact"
	"github.com/vango-dev/formplug/plugins/rating"
)

func demoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Walk through conflict resolution between two rating plugins",
		Long: `Installs two plugins that both contribute a "rating" widget and shows
how each resolution strategy decides ownership, then submits the
contact form through its plugin handler.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(cmd.Context(), cmd.OutOrStdout(), a)
		},
	}
}

func runDemo(ctx context.Context, w io.Writer, a *app) error {
	if ctx == nil {
		ctx = context.Background()
	}
	rt := formplug.New(formplug.WithLogger(a.logger))
	widget := registry.NewKey(registry.KindComponent, "rating")

	owner := func() string {
		name, ok := rt.Owner(widget)
		if !ok {
			return "(unowned)"
		}
		return name
	}

	if err := rt.RegisterPlugin(ctx, rating.New(rating.WithName("stars-a"))); err != nil {
		return err
	}
	success(w, "installed stars-a, %s owned by %s", widget, owner())

	err := rt.RegisterPlugin(ctx, rating.New(rating.WithName("stars-b"), rating.WithMax(10)),
		plugin.WithStrategy(plugin.StrategyWarn))
	if err != nil {
		return err
	}
	warn(w, "stars-b with warn: %s still owned by %s", widget, owner())

	err = rt.RegisterPlugin(ctx, rating.New(rating.WithName("stars-c"), rating.WithMax(3)),
		plugin.WithStrategy(plugin.StrategyOverride))
	if err != nil {
		return err
	}
	success(w, "stars-c with override: %s now owned by %s", widget, owner())

	err = rt.RegisterPlugin(ctx, rating.New(rating.WithName("stars-d")),
		plugin.WithStrategy(plugin.StrategyError))
	if errors.HasCode(err, errors.CodeItemConflict) {
		warn(w, "stars-d with error: rejected (%s), installed=%t", errors.CodeItemConflict, rt.HasPlugin("stars-d"))
	} else if err != nil {
		return err
	}

	hijack := &plugin.Plugin{
		Name:       "hijack",
		Components: map[string]form.Component{"text": "fancy-text"},
	}
	if err := rt.RegisterPlugin(ctx, hijack, plugin.WithStrategy(plugin.StrategyOverride)); err != nil {
		return err
	}
	warn(w, "hijack tried to replace built-in %q: builtin=%t", "text", rt.IsBuiltinComponent("text"))

	rt.UnregisterPlugin(ctx, "stars-c", plugin.WithPurge())
	_, stillThere := rt.Component("rating")
	info(w, "purged stars-c: rating widget present=%t, owner=%s", stillThere, owner())

	inbox := &contact.Inbox{}
	if err := rt.RegisterPlugin(ctx, contact.New(inbox, a.logger)); err != nil {
		return err
	}
	def := contact.Definition()

	res, err := rt.Submit(ctx, def, "demo", form.Values{"name": "Ada", "subject": "Greetings", "message": "Hello"}, nil)
	if errors.HasCode(err, errors.CodeSubmitInvalid) {
		for _, msg := range res.Form {
			warn(w, "contact form rejected: %s", msg)
		}
	} else if err != nil {
		return err
	}

	values := form.Values{"name": "Ada", "email": "ada@example.com", "subject": "Greetings", "message": "Hello"}
	if _, err := rt.Submit(ctx, def, "demo", values, nil); err != nil {
		return err
	}
	success(w, "contact form accepted, inbox holds %d message(s)", len(inbox.Messages()))
	return nil
}
