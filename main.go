/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "outreach/cmd"

func main() {
	cmd.Execute()
}
