// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

/*
Package resfile decodes and re-encodes binary game resources: SHPI bitmap
archives, WWWW and BNKL containers, meshes, track maps, sound samples and
their compressed forms.

Decoding produces a [block.Value] tree that mirrors the schema of the
resource. Values can be edited in place and encoded again; sizes, counts,
checksums and archive offsets that depend on edited data are recomputed on
write, and untouched data comes back byte for byte.

# Basic Usage

Decoding a file in memory:

	buf, err := os.ReadFile("cars/car.fsh")
	if err != nil {
		log.Fatal(err)
	}
	v, err := resfile.Decode(buf, "cars/car.fsh", nil)
	if err != nil {
		log.Fatal(err)
	}
	width, _ := v.Get("img0/body/width")

Loading and saving through a cache:

	cache := resfile.NewCache(logger, resfile.WithSearchPath(base, mod))
	v, err := cache.Load("cars/car.fsh")
	...
	err = cache.Save("cars/car.fsh", v)

Loads of the same path are shared until [Cache.Save] or [Cache.Invalidate]
drops the entry. Relative names are looked up in the search path, where
later directories override earlier ones.

# Verification

[Verify] round-trips a set of files in parallel and collects every failure
into a [Manifest] that can be written as YAML:

	m, err := resfile.Verify(ctx, files, resfile.VerifyOptions{Workers: 8})
	if err != nil {
		log.Fatal(err)
	}
	err = m.WriteFile("verify.yaml")

# Path Conventions

Resources refer to each other with backslash separated names. Paths given to
this package may use either separator; lookups in a [SearchPath] ignore case.
*/
package resfile
