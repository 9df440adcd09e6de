package main

import (
	"github.com/mercatolabs/fulfillment/internal/app"
	"github.com/mercatolabs/fulfillment/internal/config"
)

func main() {
	config.MustInit()
	app.MustNewApp().Run()
}
