package catalog

import "gopkg.in/yaml.v3"

// DefaultYAML serializes the built-in catalogs, for init to write out
// as a starting point for customization.
func DefaultYAML() ([]byte, error) {
	return yaml.Marshal(defaultRaw())
}

// defaultRaw returns the built-in pattern catalogs. These are the baseline
// boundaries shipped with the binary; deployments extend them via YAML.
func defaultRaw() rawSet {
	return rawSet{
		Version: "builtin-1",
		ControlTriggers: []Pattern{
			{ID: "ctl.ignore_instructions", Severity: SevCritical, Match: "ignore previous instructions"},
			{ID: "ctl.ignore_all", Severity: SevCritical, Match: "ignore all previous"},
			{ID: "ctl.disregard", Severity: SevCritical, Match: "disregard your instructions"},
			{ID: "ctl.bypass_safety", Severity: SevCritical, Match: "bypass your safety"},
			{ID: "ctl.disable_filters", Severity: SevCritical, Match: "disable your filters"},
			{ID: "ctl.developer_mode", Severity: SevCritical, Match: "developer mode"},
			{ID: "ctl.jailbreak", Severity: SevCritical, Match: "jailbreak"},
			{ID: "ctl.pretend_unrestricted", Severity: SevCritical, Regex: `pretend (you are|to be) .{0,40}(unrestricted|unfiltered|without rules)`},
			{ID: "ctl.reveal_system_prompt", Severity: SevHigh, Regex: `(reveal|print|show).{0,20}system prompt`},
			{ID: "ctl.act_as_admin", Severity: SevHigh, Regex: `act as (an? )?(admin|root|system)`},
		},
		HardVetoes: []Pattern{
			{ID: "hard.explosives", Severity: SevCritical, Regex: `how to (make|build) (a |an )?(bomb|explosive)`},
			{ID: "hard.weapons_synthesis", Severity: SevCritical, Regex: `synthesi[sz]e .{0,30}(nerve agent|sarin|vx)`},
			{ID: "hard.drug_synthesis", Severity: SevCritical, Regex: `(make|cook|synthesi[sz]e) (meth|methamphetamine|fentanyl)`},
			{ID: "hard.bioweapon", Severity: SevCritical, Regex: `weaponi[sz]e .{0,30}(virus|pathogen|anthrax)`},
			{ID: "hard.csam", Severity: SevCritical, Regex: `sexual .{0,20}(minor|child)`},
			{ID: "hard.targeted_violence", Severity: SevCritical, Regex: `help me (kill|murder|poison) `},
		},
		SoftVetoes: []Pattern{
			{ID: "soft.self_harm", Severity: SevHigh, Regex: `(want to|how to) (hurt|harm) myself`},
			{ID: "soft.suicide", Severity: SevHigh, Match: "suicide"},
			{ID: "soft.weapon_acquisition", Severity: SevHigh, Regex: `(buy|get|acquire) (a |an )?(gun|firearm) without`},
			{ID: "soft.intrusion", Severity: SevMedium, Regex: `(hack|break) into .{0,30}(account|network|system)`},
			{ID: "soft.lockpick", Severity: SevMedium, Match: "pick a lock"},
			{ID: "soft.surveillance", Severity: SevMedium, Regex: `(track|spy on|monitor) (my|someone's) (ex|spouse|partner)`},
		},
		Injection: []Pattern{
			{ID: "inj.chatml_delimiter", Severity: SevHigh, Match: "<|im_start|>"},
			{ID: "inj.system_heading", Severity: SevHigh, Regex: `(^|\n)#{1,3} ?system[:\s]`},
			{ID: "inj.admin_override", Severity: SevHigh, Match: "begin admin override"},
			{ID: "inj.fake_tool_output", Severity: SevMedium, Regex: `\[tool[_ ]?(output|result)\]`},
			{ID: "inj.base64_payload", Severity: SevMedium, Regex: `decode (this|the following) base64`},
		},
		Harassment: []Pattern{
			{ID: "har.kys", Severity: SevCritical, Match: "kill yourself"},
			{ID: "har.threat", Severity: SevHigh, Regex: `i (will|am going to) (find|hurt|get) you`},
			{ID: "har.worthless", Severity: SevMedium, Match: "you are worthless"},
			{ID: "har.repeated_insult", Severity: SevLow, Regex: `(stupid|useless) (bot|machine|assistant)`},
		},
		Spam: []Pattern{
			{ID: "spam.buy_now", Severity: SevLow, Match: "buy now"},
			{ID: "spam.click_here", Severity: SevLow, Match: "click here"},
			{ID: "spam.free_crypto", Severity: SevMedium, Regex: `free (crypto|bitcoin|tokens)`},
			{ID: "spam.limited_offer", Severity: SevLow, Match: "limited time offer"},
			{ID: "spam.shortlink", Severity: SevMedium, Regex: `(bit\.ly|tinyurl\.com|t\.co)/\S+`},
		},
	}
}
