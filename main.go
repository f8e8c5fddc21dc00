/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/PFEPLTechHub/telegram-task/cmd"

func main() {
	cmd.Execute()
}
