package main

import (
	// Register plugins via side-effects
	_ "xinbound/internal/collectors/file"
	_ "xinbound/internal/collectors/http"
	_ "xinbound/internal/publishers/file"
	_ "xinbound/internal/publishers/github"
	_ "xinbound/internal/publishers/stdout"
)

func main() {
	Execute()
}
