package main

import "github.com/andresmejia3/facecast/cmd"

func main() {
	cmd.Execute()
}
