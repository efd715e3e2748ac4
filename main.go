package main

import "github.com/jetstack/securechat/cmd"

func main() {
	cmd.Execute()
}
