package main

import "supporttriage/internal/app"

func main() {
	app.Main()
}
