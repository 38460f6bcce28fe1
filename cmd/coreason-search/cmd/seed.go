package cmd

import (
	"github.com/CoReason-AI/coreason-search/internal/store"
)

func strptr(s string) *string { return &s }

// demoCorpus returns a small biomedical corpus. The paper_a and paper_b
// documents mirror the development knowledge graph so graph hits resolve
// to real documents.
func demoCorpus() []*store.DocumentRow {
	return []*store.DocumentRow{
		{
			DocID:    "paper_a",
			Content:  "Protein X interactions and observed hepatic outcomes.",
			Title:    strptr("Protein X interactions and hepatic outcomes"),
			Abstract: strptr("We characterize Protein X binding partners and report hepatic adverse events observed in a retrospective cohort."),
			Metadata: `{"year": 2023, "journal": "J Hepatol", "mesh_terms": ["Proteins", "Liver Failure"]}`,
		},
		{
			DocID:    "paper_b",
			Content:  "Protein X structural analysis.",
			Title:    strptr("Structural analysis of Protein X"),
			Abstract: strptr("Cryo-EM structures of Protein X at 2.1 angstrom resolution."),
			Metadata: `{"year": 2022, "journal": "Structure", "mesh_terms": ["Proteins", "Cryoelectron Microscopy"]}`,
		},
		{
			DocID:    "pmid-1001",
			Content:  "mRNA vaccine efficacy against influenza strains in adults over sixty-five.",
			Title:    strptr("mRNA influenza vaccine efficacy in older adults"),
			Abstract: strptr("A phase three trial of an mRNA influenza vaccine showed sixty-one percent efficacy in adults over sixty-five."),
			Metadata: `{"year": 2024, "journal": "NEJM", "mesh_terms": ["Influenza Vaccines", "Aged"]}`,
		},
		{
			DocID:    "pmid-1002",
			Content:  "CRISPR base editing corrects the sickle cell mutation in hematopoietic stem cells.",
			Title:    strptr("Base editing for sickle cell disease"),
			Abstract: strptr("Adenine base editors corrected HBB in patient-derived stem cells with minimal off-target activity."),
			Metadata: `{"year": 2023, "journal": "Nature", "mesh_terms": ["CRISPR-Cas Systems", "Anemia, Sickle Cell"]}`,
		},
		{
			DocID:    "pmid-1003",
			Content:  "Statin therapy and incident diabetes risk in a large prospective cohort.",
			Title:    strptr("Statins and incident diabetes"),
			Abstract: strptr("High-intensity statin use was associated with a modest increase in incident type two diabetes."),
			Metadata: `{"year": 2022, "journal": "Lancet", "mesh_terms": ["Hydroxymethylglutaryl-CoA Reductase Inhibitors", "Diabetes Mellitus"]}`,
		},
		{
			DocID:    "pmid-1004",
			Content:  "Gut microbiome composition predicts response to immune checkpoint inhibitors in melanoma.",
			Title:    strptr("Microbiome and checkpoint inhibitor response"),
			Abstract: strptr("Responders showed enrichment of Faecalibacterium before anti-PD-1 therapy."),
			Metadata: `{"year": 2023, "journal": "Science", "mesh_terms": ["Gastrointestinal Microbiome", "Melanoma"]}`,
		},
	}
}
