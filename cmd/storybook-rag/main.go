// Package main is the entry point for the storybook QA service.
package main

import (
	_ "go.uber.org/automaxprocs/maxprocs"

	"github.com/kart-io/storybook-rag/cmd/storybook-rag/app"
)

func main() {
	app.NewApp().Run()
}
