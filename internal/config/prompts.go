package config

// DefaultExtractionPrompt asks for a JSON list of entities. The first verb
// receives the numbered category list, the second the chunk text.
const DefaultExtractionPrompt = `你是一个专业的知识图谱构建专家。请从以下工程设计文档文本中提取实体信息，并按照 OpenSPG 的标准格式组织。

请提取以下类型的实体：
%s

对于每个实体，请提供：
- name: 实体名称（中文）
- description: 实体描述
- category: 实体类别（从上述类型中选择最合适的）
- properties: 相关属性（如果有的话）

请以 JSON 格式返回结果：
[
    {
        "name": "实体名称",
        "description": "实体描述",
        "category": "实体类别",
        "properties": {
            "属性名": "属性描述"
        }
    }
]

注意：
1. 只提取在文档中明确提到的实体
2. 实体名称应该是标准化的专业术语
3. 描述应该简洁明了
4. 如果文档中没有明确的实体，返回空数组 []

文档文本：
%s
`
