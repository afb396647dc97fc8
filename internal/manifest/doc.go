// Package manifest loads the list of artifacts to install.
//
// A manifest is an array of entries, usually stored as mods.json:
//
//	[
//	  {"filename": "jei.jar", "url": "https://www.curseforge.com/minecraft/mc-mods/jei/files/4712345", "mode": "normal", "tags": []},
//	  {"filename": "config/extra.zip", "url": "https://example.com/extra.zip", "mode": "extract", "tags": ["client-only", "optional"]}
//	]
//
// The same layout is accepted as YAML when the file name ends in .yaml or
// .yml. Manifests can also be fetched over HTTP with Fetch.
package manifest
