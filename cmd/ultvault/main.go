package main

import "github.com/ultiledger/go-ultivault/cmd/ultvault/app"

func main() {
	app.Execute()
}
