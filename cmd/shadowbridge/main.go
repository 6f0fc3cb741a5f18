package main

import (
	_ "go.uber.org/automaxprocs"

	"github.com/peeredge-io/shadowbridge/cmd/shadowbridge/app"
	pkgapp "github.com/peeredge-io/shadowbridge/pkg/app"
)

func main() {
	command := app.NewApp()
	if err := command.Run(); err != nil {
		pkgapp.Exit(err)
	}
}
