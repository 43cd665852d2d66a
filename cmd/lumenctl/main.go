package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/golang/glog"
	"github.com/urfave/cli/v2"

	conf "github.com/lumenblog/lumen/config"
	h "github.com/lumenblog/lumen/helpers"
	"github.com/lumenblog/lumen/models"
	"github.com/lumenblog/lumen/server"
)

func main() {
	app := cli.App{
		Name:  "lumenctl",
		Usage: "maintenance tasks for a lumen API deployment",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "path to the config file",
				Value:   conf.ConfigFilePath,
				EnvVars: []string{"LUMEN_CONFIG"},
			},
		},
		After: func(cctx *cli.Context) error {
			glog.Flush()
			return nil
		},
	}
	app.Commands = []*cli.Command{
		{
			Name:   "init-db",
			Usage:  "create any missing tables and indexes",
			Action: runInitDB,
		},
		{
			Name:   "init-categories",
			Usage:  "create the default categories that do not exist yet",
			Action: runInitCategories,
		},
		{
			Name:  "clean-images",
			Usage: "delete uploaded images that no article refers to",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "dry-run",
					Usage: "report what would be deleted without deleting anything",
				},
			},
			Action: runCleanImages,
		},
	}
	app.RunAndExitOnError()
}

func openDB(cctx *cli.Context) (*sql.DB, error) {
	err := conf.Load(cctx.String("config"))
	if err != nil {
		return nil, err
	}

	return h.OpenDB(server.DBConfig())
}

func runInitDB(cctx *cli.Context) error {
	db, err := openDB(cctx)
	if err != nil {
		return err
	}
	defer db.Close()

	err = models.EnsureSchema(db)
	if err != nil {
		return err
	}

	fmt.Println("Schema is up to date")
	return nil
}

func runInitCategories(cctx *cli.Context) error {
	db, err := openDB(cctx)
	if err != nil {
		return err
	}
	defer db.Close()

	report, _, err := models.InitDefaultCategories(&models.Env{DB: db})
	if err != nil {
		return err
	}

	for _, slug := range report.Created {
		fmt.Printf("Created: %s\n", slug)
	}
	for _, slug := range report.Skipped {
		fmt.Printf("Exists:  %s\n", slug)
	}
	for _, slug := range report.Failed {
		fmt.Printf("Failed:  %s\n", slug)
	}

	if len(report.Failed) > 0 {
		return cli.Exit(fmt.Sprintf("%d categories could not be created", len(report.Failed)), 1)
	}
	return nil
}

func runCleanImages(cctx *cli.Context) error {
	db, err := openDB(cctx)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()

	store, err := server.NewStorage(ctx)
	if err != nil {
		return err
	}

	report, err := models.CleanOrphanImages(
		ctx,
		&models.Env{DB: db, Storage: store},
		cctx.Bool("dry-run"),
	)
	if err != nil {
		return err
	}

	for _, line := range report.Lines() {
		fmt.Fprintln(os.Stdout, line)
	}

	if len(report.Errors) > 0 {
		return cli.Exit("some images could not be deleted", 1)
	}
	return nil
}
