package main

import "playlistomatic/internal/app"

func main() {
	app.Main()
}
