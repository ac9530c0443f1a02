// Command jobcrawler collects postings from Korean job boards.
package main

import "github.com/JakeFAU/jobboard-crawler/cmd"

func main() {
	cmd.Execute()
}
