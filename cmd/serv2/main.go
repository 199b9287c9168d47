package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MrKekPlag/serv2/internal/app"
	"github.com/MrKekPlag/serv2/internal/config"
	"github.com/MrKekPlag/serv2/internal/server"
	"github.com/MrKekPlag/serv2/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "serv2",
	Short: "Serv2 project tracking server",
	Long: `Serv2 tracks projects, their goals and employees across three
categories (projects, generation, realization), persisted as JSON files.
Run 'serv2 serve' to expose the HTTP API, or manage users and data files
directly with the subcommands.`,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("SERV2")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func registerCommands() {
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(userCmd())
	rootCmd.AddCommand(dataCmd())
	rootCmd.AddCommand(projectCmd())
}

// loadConfig resolves the workspace config and anchors the data dir under
// the workspace when it is relative.
func loadConfig() (*config.Config, error) {
	workspace := viper.GetString("workspace")
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return nil, err
	}
	if !filepath.IsAbs(cfg.Data.Dir) {
		cfg.Data.Dir = filepath.Join(workspace, cfg.Data.Dir)
	}
	return cfg, nil
}

func withApp(fn func(a *app.App) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := app.Build(afero.NewOsFs(), cfg)
	if err != nil {
		return err
	}
	return fn(a)
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if cmd.Flags().Changed("base-path") {
				cfg.Server.BasePath = basePath
			}
			secret := cfg.Auth.JWTSecret
			if env := os.Getenv("SERV2_JWT_SECRET"); env != "" {
				secret = env
			}
			if secret == "" {
				return fmt.Errorf("SERV2_JWT_SECRET is required for bearer auth")
			}
			a, err := app.Build(afero.NewOsFs(), cfg)
			if err != nil {
				return err
			}
			authCfg := server.AuthConfig{
				JWTSecret: secret,
				TokenTTL:  time.Duration(cfg.Auth.TokenTTLMinutes) * time.Minute,
			}
			handler, err := server.New(server.Config{
				Engine:   a.Engine,
				Users:    a.Users,
				BasePath: cfg.Server.BasePath,
				Auth:     authCfg,
			})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: cfg.Server.Addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Serv2 API on http://%s%s (OpenAPI at /openapi.json, Swagger UI at /docs)\n", cfg.Server.Addr, cfg.Server.BasePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	cmd.Flags().StringVar(&basePath, "base-path", "", "API base path (overrides config)")
	return cmd
}

func userCmd() *cobra.Command {
	user := &cobra.Command{Use: "user", Short: "Manage users"}
	user.AddCommand(userAddCmd())
	user.AddCommand(userListCmd())
	user.AddCommand(userRmCmd())
	return user
}

func userAddCmd() *cobra.Command {
	var firstName, lastName, username, password, role string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app.App) error {
				u, err := a.Users.Register(firstName, lastName, username, password, role)
				if err != nil {
					return err
				}
				u.Password = ""
				return printJSONOrTable(u)
			})
		},
	}
	cmd.Flags().StringVar(&firstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&lastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&username, "username", "", "login name")
	cmd.Flags().StringVar(&password, "password", "", "password")
	cmd.Flags().StringVar(&role, "role", "user", "role (user or admin)")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func userListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app.App) error {
				list := a.Users.List()
				if viper.GetBool("json") {
					return printJSON(list)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Username", "First Name", "Last Name", "Role"})
				for _, u := range list {
					tw.AppendRow(table.Row{u.Username, u.FirstName, u.LastName, u.Role})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func userRmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rm <username>",
		Short: "Delete a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app.App) error {
				if err := a.Users.Delete(args[0]); err != nil {
					return err
				}
				fmt.Println("deleted", args[0])
				return nil
			})
		},
	}
	return cmd
}

func dataCmd() *cobra.Command {
	data := &cobra.Command{Use: "data", Short: "Manage data files"}
	data.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Seed missing data files",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app.App) error {
				fmt.Println("data files ready in", a.Config.Data.Dir)
				return nil
			})
		},
	})
	return data
}

func projectCmd() *cobra.Command {
	prj := &cobra.Command{Use: "project", Short: "Inspect projects"}
	prj.AddCommand(projectListCmd())
	return prj
}

func projectListCmd() *cobra.Command {
	var tag string
	var all bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app.App) error {
				ctx := cmd.Context()
				projects, err := a.Engine.ListProjects(ctx, tag)
				if all {
					projects, err = a.Engine.ListAllProjects(ctx)
				}
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(projects)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Employees", "Goals", "Rating", "Deadline"})
				for _, p := range projects {
					tw.AppendRow(table.Row{p.ID, p.Name, strings.Join(p.Employees, ", "), len(p.Goals), p.Rating, p.Deadline})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&tag, "type", string(store.CategoryDefault), "category (projects, generation, realization)")
	cmd.Flags().BoolVar(&all, "all", false, "list every category")
	return cmd
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
