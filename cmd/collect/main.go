// Command collect harvests Reddit users and their posts into CSV tables.
package main

func main() {
	Execute()
}
