// Package model defines the core data structures shared by the installer.
//
// # Artifact
//
// Artifact describes one manifest entry: where it lives under the
// destination root, where it is downloaded from, whether it is an archive
// to unpack, and which tags control its inclusion:
//
//	a := model.Artifact{
//	    Filename: "mods/jei.jar",
//	    URL:      "https://www.curseforge.com/minecraft/mc-mods/jei/files/1234567",
//	    Mode:     model.ModeNormal,
//	    Tags:     model.NewTagSet(model.TagClientOnly),
//	}
//
// # RunContext
//
// RunContext carries the operator choices for one run (destination,
// server/client mode, optional artifact toggles):
//
//	run := model.NewRunContext("/srv/minecraft/mods", true, map[string]bool{
//	    "mods/dynmap.jar": true,
//	})
//
// # Outcome
//
// Outcome is the terminal result of one artifact fetch. Outcome.OK reports
// success; otherwise Reason classifies the failure and Detail holds the
// underlying error text.
package model
