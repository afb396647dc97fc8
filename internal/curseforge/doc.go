// Package curseforge rewrites CurseForge landing-page URLs into direct
// download URLs on the CurseForge CDN.
//
// Manifests frequently reference a mod by its project file page, e.g.
//
//	https://www.curseforge.com/minecraft/mc-mods/jei/files/1234567
//
// which serves HTML rather than the jar. The file id splits into a
// four-digit prefix and the remaining digits to form the CDN location:
//
//	https://edge.forgecdn.net/files/1234/567/jei.jar
//
// # Usage
//
//	r := curseforge.NewResolver("")
//	direct := r.Resolve(rawURL, "mods/jei.jar")
//
// URLs that do not match the landing-page pattern are returned unchanged,
// so Resolve is safe to call on every manifest URL.
package curseforge
