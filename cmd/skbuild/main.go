package main

import "github.com/goplus/skbuild/cmd/skbuild/internal"

func main() {
	internal.Execute()
}
