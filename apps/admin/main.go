package main

import (
	"log"
	"os"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/services/logger"
	"github.com/trezcool/academia/storage/database"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewStdLogger("ADMIN : ", logsvc.NewLogWriter(conf.LogFile), log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	cl := &commandLine{
		conf: conf,
		out:  os.Stdout,
		openDB: func() (*sqlx.DB, error) {
			if err := database.CreateIfNotExist(conf.Database); err != nil {
				return nil, err
			}
			return database.Open(conf.Database)
		},
	}

	err := cl.run(os.Args)
	if cErr := cl.close(); cErr != nil {
		logger.Printf("closing database: %v", cErr)
	}
	if err != nil {
		if err != errHelp {
			logger.Printf("error: %v", err)
		}
		os.Exit(1)
	}
}
