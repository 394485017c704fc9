package assetkind

func init() {
	globalRegistry.mustRegister(KindMetadata{
		Key:              "video",
		Description:      "primary footage",
		DefaultExtension: ".mp4",
		Validation:       ValidationModeSignature,
	})
	globalRegistry.mustRegister(KindMetadata{
		Key:              "alpha",
		Description:      "alpha matte rendered alongside the footage",
		DefaultExtension: ".webm",
		Validation:       ValidationModeSignature,
	})
	globalRegistry.mustRegister(KindMetadata{
		Key:              "audio",
		Description:      "standalone audio track",
		DefaultExtension: ".m4a",
		Validation:       ValidationModeSignature,
	})
	globalRegistry.mustRegister(KindMetadata{
		Key:              "image",
		Description:      "still image or overlay texture",
		DefaultExtension: ".png",
		Validation:       ValidationModeSignature,
	})
	globalRegistry.mustRegister(KindMetadata{
		Key:         defaultKindKey,
		Description: "untyped asset from a flat URL list",
		Validation:  ValidationModeNever,
	})
}

func (r *registry) mustRegister(meta KindMetadata) {
	if err := r.register(meta); err != nil {
		panic(err)
	}
}
