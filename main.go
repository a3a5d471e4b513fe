package main

import "github.com/fsinspect/go-apfs/cmd"

func main() {
	cmd.Execute()
}
