package main

import "github.com/gkatanacio/mirror-downloader/cmd"

func main() {
	cmd.Execute()
}
