package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/vango-dev/formplug/internal/errors"
	"github.com/vango-dev/formplug/pkg/form"
)

func validateCmd(a *app) *cobra.Command {
	var (
		pairs   map[string]string
		file    string
		locale  string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "validate <form>",
		Short: "Validate values against a form definition",
		Long: `Runs the field type, field custom and form validators of a form
provided by an installed plugin or manifest.

Values come from --set key=value pairs or a YAML/JSON file (--values).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.newEnv(cmd.Context())
			if err != nil {
				return err
			}
			def, ok := e.form(args[0])
			if !ok {
				return fmt.Errorf("unknown form %q", args[0])
			}

			values := form.Values{}
			if file != "" {
				if values, err = readValues(file); err != nil {
					return err
				}
			}
			for k, v := range pairs {
				values[k] = v
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			if locale == "" {
				locale = a.cfg.Locale
			}
			res := e.rt.Validate(ctx, def, values, e.catalog.Translator(locale))

			w := cmd.OutOrStdout()
			if res.Valid() {
				success(w, "%s: valid", def.Name)
				return nil
			}
			fields := make([]string, 0, len(res.Fields))
			for field := range res.Fields {
				fields = append(fields, field)
			}
			sort.Strings(fields)
			for _, field := range fields {
				warn(w, "%s: %s", field, res.Fields[field])
			}
			for _, msg := range res.Form {
				warn(w, "%s", msg)
			}
			return errors.New(errors.CodeSubmitInvalid).
				WithDetailf("form %q has %d invalid field(s) and %d form error(s)", def.Name, len(res.Fields), len(res.Form))
		},
	}

	cmd.Flags().StringToStringVar(&pairs, "set", nil, "field value as key=value (repeatable)")
	cmd.Flags().StringVar(&file, "values", "", "YAML or JSON file holding field values")
	cmd.Flags().StringVar(&locale, "locale", "", "message language (default: config locale)")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "bound for asynchronous form validators")

	return cmd
}

// readValues decodes a YAML (or JSON, a YAML subset) document of field values.
func readValues(path string) (form.Values, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	values := form.Values{}
	if json.Valid(data) {
		err = json.Unmarshal(data, &values)
	} else {
		err = yaml.Unmarshal(data, &values)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return values, nil
}
