// Package main provides the entry point for the formai CLI.
//
// formai fills in and submits website contact forms with a headless browser
// driven by an LLM, and serves that capability over HTTP.
//
// Usage:
//
//	formai serve
//	formai submit https://example.com/contact "ご提案の件でご連絡しました"
//	formai env
//
// See --help for all available options.
package main

func main() {
	Execute()
}
