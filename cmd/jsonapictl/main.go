package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/jwtauth"
	"github.com/urfave/cli/v3"
)

var Version string

func main() {
	ctx := context.Background()

	var (
		serverURL string
		token     string
	)
	api := func() *client { return newClient(serverURL, token) }

	app := &cli.Command{
		Name:    "jsonapictl",
		Usage:   "Read and write content values through the JSON API",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "server",
				Usage:       "JSON API base URL",
				Value:       "http://localhost:8080/api/v1",
				Destination: &serverURL,
				Aliases:     []string{"s"},
				Sources:     cli.EnvVars("JSONAPI_URL"),
			},
			&cli.StringFlag{
				Name:        "token",
				Usage:       "Bearer token",
				Destination: &token,
				Aliases:     []string{"t"},
				Sources:     cli.EnvVars("JSONAPI_TOKEN"),
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Log requests",
				Action: func(ctx context.Context, cmd *cli.Command, b bool) error {
					if b {
						log.SetLevel(log.DebugLevel)
					}
					return nil
				},
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "Show an object, or one of its values",
				ArgsUsage: "<uid> [field]",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					uid := cmd.Args().Get(0)
					if uid == "" {
						return errors.New("uid is required")
					}
					path := "/objects/" + url.PathEscape(uid)
					if field := cmd.Args().Get(1); field != "" {
						path += "/" + url.PathEscape(field)
					}
					var out map[string]any
					if err := api().do(ctx, http.MethodGet, path, nil, &out); err != nil {
						return err
					}
					return printJSON(out)
				},
			},
			{
				Name:      "set",
				Usage:     "Set values of an object",
				ArgsUsage: "<uid> name=value...",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					args := cmd.Args().Slice()
					if len(args) < 2 {
						return errors.New("uid and at least one assignment are required")
					}
					values, err := parseAssignments(args[1:])
					if err != nil {
						return err
					}
					var out map[string]any
					if err := api().do(ctx, http.MethodPost, "/objects/"+url.PathEscape(args[0])+"/update", values, &out); err != nil {
						return err
					}
					if ignored, _ := out["ignored"].([]any); len(ignored) > 0 {
						log.Warn("Some values were not set", "ignored", ignored)
					}
					return printJSON(out)
				},
			},
			{
				Name:      "create",
				Usage:     "Add an item to the portal",
				ArgsUsage: "name=value...",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "type",
						Usage:    "Portal type, e.g. Document or Client",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Item id",
						Required: true,
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					values, err := parseAssignments(cmd.Args().Slice())
					if err != nil {
						return err
					}
					body := map[string]any{
						"portal_type": cmd.String("type"),
						"id":          cmd.String("id"),
						"values":      values,
					}
					var out map[string]any
					if err := api().do(ctx, http.MethodPost, "/objects", body, &out); err != nil {
						return err
					}
					return printJSON(out)
				},
			},
			{
				Name:      "delete",
				Usage:     "Remove an item",
				ArgsUsage: "<uid>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					uid := cmd.Args().Get(0)
					if uid == "" {
						return errors.New("uid is required")
					}
					if err := api().do(ctx, http.MethodDelete, "/objects/"+url.PathEscape(uid), nil, nil); err != nil {
						return err
					}
					log.Info("Deleted", "uid", uid)
					return nil
				},
			},
			{
				Name:      "catalog",
				Usage:     "Show the catalog metadata of an object",
				ArgsUsage: "<uid>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					uid := cmd.Args().Get(0)
					if uid == "" {
						return errors.New("uid is required")
					}
					var out map[string]any
					if err := api().do(ctx, http.MethodGet, "/catalog/"+url.PathEscape(uid), nil, &out); err != nil {
						return err
					}
					return printJSON(out)
				},
			},
			{
				Name:  "portal",
				Usage: "Show the portal root",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					var out map[string]any
					if err := api().do(ctx, http.MethodGet, "/portal", nil, &out); err != nil {
						return err
					}
					return printJSON(out)
				},
				Commands: []*cli.Command{
					{
						Name:      "set",
						Usage:     "Set attributes of the portal root",
						ArgsUsage: "name=value...",
						Action: func(ctx context.Context, cmd *cli.Command) error {
							values, err := parseAssignments(cmd.Args().Slice())
							if err != nil {
								return err
							}
							var out map[string]any
							if err := api().do(ctx, http.MethodPost, "/portal/update", values, &out); err != nil {
								return err
							}
							return printJSON(out)
						},
					},
				},
			},
			{
				Name:  "token",
				Usage: "Mint a bearer token for development servers",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "secret",
						Usage:    "HS256 secret of the server",
						Required: true,
						Sources:  cli.EnvVars("JWT_SECRET"),
					},
					&cli.StringFlag{
						Name:     "sub",
						Usage:    "Principal id",
						Required: true,
					},
					&cli.StringSliceFlag{
						Name:  "role",
						Usage: "Global role, may be repeated",
					},
					&cli.DurationFlag{
						Name:  "ttl",
						Usage: "Token lifetime",
						Value: time.Hour,
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					tokenAuth := jwtauth.New("HS256", []byte(cmd.String("secret")), nil)
					claims := map[string]interface{}{
						"sub":   cmd.String("sub"),
						"roles": cmd.StringSlice("role"),
					}
					jwtauth.SetIssuedNow(claims)
					jwtauth.SetExpiryIn(claims, cmd.Duration("ttl"))
					_, tokenString, err := tokenAuth.Encode(claims)
					if err != nil {
						return fmt.Errorf("failed to sign token: %w", err)
					}
					fmt.Println(tokenString)
					return nil
				},
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
