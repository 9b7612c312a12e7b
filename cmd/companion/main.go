// Command companion talks to the wellness companion from a terminal.
package main

func main() {
	execute()
}
