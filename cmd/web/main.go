package main

import "blooddonation_backend/internal/app"

func main() {
	app.Run()
}
