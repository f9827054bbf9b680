package main

import (
	"serialsettings/cmd/app"
)

func main() {
	a := &app.Application{}
	a.Init()
	a.Run()
}
