package main

import (
	"embed"
	"fmt"
	"os"

	"github.com/labstack/gommon/color"
	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
)

//go:embed all:frontend/dist
var assets embed.FS

var (
	version = "DEV"
)

func main() {
	printBanner()

	app := NewApp()
	err := wails.Run(&options.App{
		Title:       "WhisperTyper",
		Width:       440,
		Height:      560,
		MinWidth:    360,
		MinHeight:   420,
		AssetServer: &assetserver.Options{Assets: assets},
		OnStartup:   app.startup,
		OnShutdown:  app.shutdown,
		Bind:        []interface{}{app},
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "whispertyper:", err)
		os.Exit(1)
	}
}

func printBanner() {
	banner :=
		`
    WHISPERTYPER v: %s

    hold %s, speak, release
________________________________________________________

`
	cl := color.New()
	cl.Printf(banner, cl.Red(version), cl.Green("Ctrl+Shift+Alt"))
}
