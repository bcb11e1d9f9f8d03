package main

import (
	api "SongBracket/api"
)

func main() {
	api.Run()
}
