package nca

// This file holds presentation-only string tables for the enums defined in
// header.go, kept separate from parsing/verification logic per the design
// notes' "static string tables are a presentation concern" guidance.

func (d DistributionType) String() string {
	switch d {
	case DistributionDownload:
		return "Download"
	case DistributionGameCard:
		return "GameCard"
	default:
		return "Unknown"
	}
}

func (c ContentType) String() string {
	switch c {
	case ContentTypeProgram:
		return "Program"
	case ContentTypeMeta:
		return "Meta"
	case ContentTypeControl:
		return "Control"
	case ContentTypeManual:
		return "Manual"
	case ContentTypeData:
		return "Data"
	case ContentTypePublicData:
		return "PublicData"
	default:
		return "Unknown"
	}
}

func (k KaekIndex) String() string {
	switch k {
	case KaekApplication:
		return "Application"
	case KaekOcean:
		return "Ocean"
	case KaekSystem:
		return "System"
	default:
		return "Unknown"
	}
}

func (f FormatType) String() string {
	switch f {
	case FormatPfs:
		return "PartitionFs"
	case FormatRomFs:
		return "RomFs"
	default:
		return "Unknown"
	}
}

func (h HashType) String() string {
	switch h {
	case HashNone:
		return "None"
	case HashHierarchicalSha256:
		return "HierarchicalSha256"
	case HashHierarchicalIntegrity:
		return "HierarchicalIntegrity"
	default:
		return "Unknown"
	}
}

func (e EncryptionType) String() string {
	switch e {
	case EncryptionNone:
		return "None"
	case EncryptionAesXts:
		return "AesXts"
	case EncryptionAesCtr:
		return "AesCtr"
	case EncryptionAesCtrEx:
		return "AesCtrEx"
	default:
		return "Unknown"
	}
}
