//go:build tinygo

package main

import (
	"context"

	"github.com/dprg/libdprg/app"
	"github.com/dprg/libdprg/hal"
)

func main() {
	h := hal.New()
	if err := app.Run(context.Background(), h); err != nil {
		h.Logger().WriteLineString("libdprg: " + err.Error())
	}
	select {}
}
