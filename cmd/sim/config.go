package main

import "os"

var personaName = getenv("SimPersona", "Fast_ECN")
var listenAddr = getenv("SimListenAddr", "localhost:9898")
var configFile = getenv("SimConfigFile", "config/config.yaml")
var dictDir = getenv("SimDictDir", "dict")

func getenv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
