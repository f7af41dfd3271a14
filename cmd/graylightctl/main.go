// graylightctl is a command line client for the graylight REST API.
package main

func main() {
	Execute()
}
