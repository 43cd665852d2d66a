package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang/glog"

	conf "github.com/lumenblog/lumen/config"
	h "github.com/lumenblog/lumen/helpers"
	"github.com/lumenblog/lumen/server"
)

var configPath = flag.String("config", conf.ConfigFilePath, "path to the config file")

func main() {
	// Also used to init glog
	flag.Parse()
	defer glog.Flush()

	// 100 megabytes max before rolling the log files
	glog.MaxSize = 1024 * 1024 * 100

	err := conf.Load(*configPath)
	if err != nil {
		glog.Fatal(err)
	}

	// Catch closing signal, stop the server and flush logs
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGHUP,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	)
	defer stop()

	if glog.V(2) {
		glog.Infof(
			"Initialising DB connection on %s:%d for database %s",
			conf.ConfigStrings[conf.DatabaseHost],
			conf.ConfigInt64s[conf.DatabasePort],
			conf.ConfigStrings[conf.DatabaseName],
		)
	}
	db := h.InitDBConnection(server.DBConfig())
	defer db.Close()

	env, err := server.NewEnv(ctx, db)
	if err != nil {
		glog.Fatal(err)
	}

	if glog.V(2) {
		glog.Infof("Starting server on port %d", conf.ConfigInt64s[conf.ListenPort])
	}
	err = server.StartServer(ctx, env, conf.ConfigInt64s[conf.ListenPort])
	if err != nil {
		glog.Error(err)
		glog.Flush()
		os.Exit(1)
	}
}
