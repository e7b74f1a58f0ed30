package main

import "github.com/ideaslabiot/IDEAS-project/cmd"

func main() {
	cmd.Execute()
}
