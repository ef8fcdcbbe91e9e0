package source

// resolvedTaskStatuses mirrors AliyunSource.RESOLVED_STATUSES: task
// states that close the alert as resolved rather than firing. A Failed
// task is not among them and stays firing (severity critical).
var resolvedTaskStatuses = map[string]bool{
	"Succeeded": true,
	"Stopped":   true,
}

// Aliyun parses Aliyun PAI DLC task-notification webhooks, delivered in
// Feishu's "post" message format: a nested
// content.post.zh_cn{title, content: [[{tag, text}, ...], ...]}
// structure of label/value rows.
type Aliyun struct{}

func (Aliyun) Extract(payload map[string]any) Info {
	content, _ := payload["content"].(map[string]any)
	post, _ := content["post"].(map[string]any)
	zhCN, _ := post["zh_cn"].(map[string]any)

	title, _ := zhCN["title"].(string)
	fields := parsePostFields(zhCN["content"])

	taskStatus := fields["任务状态"]
	status := "firing"
	if resolvedTaskStatuses[taskStatus] {
		status = "resolved"
	}

	labels := map[string]string{}
	for k, v := range map[string]string{
		"task_name":   fields["任务名称"],
		"task_id":     fields["任务ID"],
		"task_status": taskStatus,
		"workspace":   fields["工作空间"],
		"region":      fields["所属区域"],
		"creator":     fields["创建者"],
	} {
		if v != "" {
			labels[k] = v
		}
	}

	return Info{
		Title:       orDefault(title, "Aliyun PAI Notification"),
		Description: fields["消息内容"],
		Severity:    aliyunSeverity(taskStatus),
		Labels:      labels,
		Status:      status,
		ParsedData:  payload,
	}
}

func aliyunSeverity(taskStatus string) string {
	switch taskStatus {
	case "Failed":
		return "critical"
	case "Stopped":
		return "warning"
	case "Succeeded":
		return "info"
	default:
		return "info"
	}
}

// parsePostFields flattens Feishu's nested post-content rows (a list of
// rows, each a list of {"tag": "text", "text": "键: 值"} segments) into a
// label -> value map, matching _parse_content_fields's "键: 值" convention.
func parsePostFields(raw any) map[string]string {
	out := map[string]string{}
	rows, _ := raw.([]any)
	for _, rowRaw := range rows {
		segments, _ := rowRaw.([]any)
		for _, segRaw := range segments {
			seg, _ := segRaw.(map[string]any)
			text, _ := seg["text"].(string)
			runes := []rune(text)
			for i, r := range runes {
				if r == ':' || r == '：' {
					key := string(runes[:i])
					val := string(runes[i+1:])
					out[key] = trimSpace(val)
					break
				}
			}
		}
	}
	return out
}

func trimSpace(s string) string {
	start, end := 0, len(s)
	for start < end && (s[start] == ' ' || s[start] == '\t') {
		start++
	}
	for end > start && (s[end-1] == ' ' || s[end-1] == '\t') {
		end--
	}
	return s[start:end]
}
