package main

import "github.com/c-colloid/previewcache/cmd"

func main() {
	cmd.Execute()
}
