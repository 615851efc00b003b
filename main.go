// Command druginfo runs the MedlinePlus drug information pipeline.
package main

import "github.com/JakeFAU/druginfo-crawler/cmd"

func main() {
	cmd.Execute()
}
