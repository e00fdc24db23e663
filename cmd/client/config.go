package main

import "os"

var fixVersion = getenv("ClientFixVersion", "4.2")
var simAddr = getenv("ClientSimAddr", "localhost:9898")

const RouterEventCapacity = 1000

func getenv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
