package main

import "github.com/ValentinKolb/spillkv/cmd"

func main() {
	cmd.Execute()
}
